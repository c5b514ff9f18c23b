// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package replay

// Downsample thins a point sequence to at most cap+1 entries by keeping
// every k-th point, where k is the smallest stride that fits the cap.
// The final point is always retained so the route still ends where the
// trip ended. Sequences at or under the cap are returned unchanged.
func Downsample(fixes []Fix, cap int) []Fix {
	if cap <= 0 || len(fixes) <= cap {
		return fixes
	}

	stride := (len(fixes) + cap - 1) / cap

	out := make([]Fix, 0, cap+1)
	for i := 0; i < len(fixes); i += stride {
		out = append(out, fixes[i])
	}

	last := fixes[len(fixes)-1]
	if out[len(out)-1].Time != last.Time {
		out = append(out, last)
	}
	return out
}
