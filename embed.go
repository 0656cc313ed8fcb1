package spacetravelling

import "embed"

// EmbeddedAssets contains the static assets every site ships with:
// styles.css, logo.svg, favicon.svg
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
