// Package migrate moves one Node-RED tab from a source runtime to a target
// runtime. The Service fetches both runtimes, rewrites link in and link out
// boundaries into HTTP endpoints, and deploys the results; the push command
// wires it to configuration, credentials, and logging.
package migrate
