// Package shared holds helpers used by more than one TierVC package.
//
// The testutil subpackage provides the test doubles used across the tree:
// deterministic, failing and scripted scoring providers plus slog capture
// helpers. Production code must not import testutil.
package shared
