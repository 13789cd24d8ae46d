// Package config wires the library packages into a running instance.
//
// Key Components:
//
//   - Config: connection strings, schema file, geocoder and cache settings. Empty
//     connection strings select the in-process backends (memstore, lcache), which keeps
//     local experiments and tests free of external services.
//
//   - Bootstrap: loads the YAML schema file, connects MongoDB and Redis, registers every
//     kind (creating its indexes) and freezes the registry. The returned App also carries
//     the session directory and the helpdesk queue, both sharing the cache store.
//
//   - Logger: custom dragonboat logger.ILogger producing "LEVEL | component | message"
//     lines, installed by InitLoggers for all component loggers.
package config
