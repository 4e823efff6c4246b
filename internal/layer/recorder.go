// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer

// Recorder receives layer diagnostics for metrics.
type Recorder interface {
	RecordCoverageGap()
	RecordLayersResolved(n int)
	RecordMergeAbandoned()
}

type nopRecorder struct{}

func (nopRecorder) RecordCoverageGap()       {}
func (nopRecorder) RecordLayersResolved(int) {}
func (nopRecorder) RecordMergeAbandoned()    {}
