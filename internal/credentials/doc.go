// Package credentials resolves the Node-RED admin passwords used to authenticate
// against source and target runtimes without putting secrets on the command line.
package credentials
