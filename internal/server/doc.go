// Package server provides the HTTP server for the training status dashboard
// and API.
//
// It handles all HTTP concerns of the daystatus command:
//
//   - Dashboard serving: the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: read, save and delete day records under "/api/status"
//   - Exports: ICS and XLSX downloads at "/api/export"
//   - Server-Sent Events: store changes at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, bounded by
// a configurable timeout for in-flight requests.
package server
