// Package server exposes the icon cache and address directory over HTTP.
//
// The host (a game server proxy or plugin) asks for the icon of a pinging
// client by address and reports joins so later pings can be matched.
// Unknown addresses and players whose icon cannot be produced get
// 204 No Content; the host then shows its default icon.
//
// Routes:
//
//	GET    /v1/icon?address=A               PNG icon for the player last seen at A
//	GET    /v1/favicon?address=A            {"favicon":"data:image/png;base64,..."}
//	GET    /v1/players/{uuid}/icon?name=N   PNG icon for an explicit player; name needs admin
//	DELETE /v1/players/{uuid}/icon?name=N   drop the cached icon (admin)
//	POST   /v1/joins                        record {uuid,name,address} (admin)
//	DELETE /v1/addresses                    forget every address (admin)
//	DELETE /v1/addresses/{uuid}             forget one player (admin)
//	GET    /healthz /readyz /health         health probes
//	GET    /metrics                         Prometheus metrics, when enabled
package server
