// Package report renders parsed HAProxy metrics as the plain-text message
// posted to the notification webhook.
//
// Render(metrics, now) produces the title, date line, one block per backend
// server and an error summary. RenderFailure(errText, now) produces the
// shorter report sent when the stats endpoint could not be read. Both are
// pure: the timestamp is passed in so tests control the clock.
package report
