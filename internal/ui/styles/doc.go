// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the color palette and component styles of the
counsel TUI.

All colors use Lip Gloss AdaptiveColor so light and dark terminals both
render legibly. Every colored state also carries an ASCII marker
(StatusIndicators) so it reads without color.

# Theme

NewTheme detects the terminal profile. NewThemeWithProfile pins one, which
is how --no-color and tests get plain output:

	theme := styles.NewThemeWithProfile(termenv.Ascii, true)
	theme.SetSize(width, height)
	if theme.GetLayoutMode() == styles.LayoutNarrow {
	    // hide the session sidebar
	}
*/
package styles
