// Package web holds the page and email templates.
package web

import "embed"

//go:embed templates/*.html emails/*.html static/*.css
var FS embed.FS
