// Package common provides the data structures shared by the dGrid client,
// the grid members and the command line tools.
//
// The package focuses on:
//   - The message protocol spoken between clients and members
//   - Configuration structures for client and server components
//   - The zap based logger behind dragonboat's logger facade
//
// Key Components:
//
//   - Message: Core data structure of every request and response. Which fields
//     are set depends on the MessageType, factory functions exist for all
//     map and lock operations.
//
//   - MessageType: Enumeration of all supported operations, grouped into
//     map operations, lock operations and control messages.
//
//   - ServerConfig / ClientConfig: Settings of a member and of a client,
//     including the framed connection limits (ConnConf) and socket options.
//
//   - Logger: InitLoggers routes all package loggers (created with
//     logger.GetLogger) through a shared zap logger. Output goes to stdout and
//     optionally to a lumberjack rotated file.
package common
