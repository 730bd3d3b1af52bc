package appfs

import "embed"

// FS embeds non-Go assets needed at runtime: database migrations and
// email templates.
//
//go:embed migrations assets
var FS embed.FS
