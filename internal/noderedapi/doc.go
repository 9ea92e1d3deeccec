// Package noderedapi talks to the Node-RED admin HTTP API.
//
// The client covers the endpoints a tab migration needs: reading the deployed
// flow set, one tab, and the global configuration nodes, and writing a full
// flow set or a single tab back. Authentication uses the OAuth2 password grant
// Node-RED exposes for adminAuth-protected instances. Every non-2xx response
// surfaces as an UnexpectedStatusError carrying the method, URL, and body.
package noderedapi
