// Package utils exposes reusable helpers consumed by the flow-pusher commands.
//
// It houses the ConfigurationLoader (Viper, dotenv files, environment
// overrides), the zap LoggerFactory, the command context accessor that carries
// configuration metadata, and the FlushingWriter used for plan output.
package utils
