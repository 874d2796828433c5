// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on setup errors,
// so test bodies stay free of error plumbing.
package testutil
