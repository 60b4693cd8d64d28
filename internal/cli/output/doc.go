// Package output renders CLI results as tables, JSON or YAML.
//
// Table columns come from struct fields. The `table` tag controls them:
//
//	table:"-"       never shown
//	table:"wide"    shown only with --wide
//	table:"bytes"   integer rendered as a human size (1.2 MiB)
//	table:"millis"  Unix milliseconds rendered as an age (3 minutes ago)
//	table:"count"   integer rendered with thousands separators
//
// Options combine: table:"bytes,wide".
package output
