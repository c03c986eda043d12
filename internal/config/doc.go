// Package config provides configuration management for the Jarvis assistant.
//
// # Overview
//
// The config package uses Viper to load configuration from YAML files and
// environment variables. It provides a type-safe configuration structure with
// validation, default values, and automatic file creation.
//
// # Configuration File
//
// The configuration is stored at ~/.jarvis/config.yaml and is created with
// defaults on first use.
//
// # Environment Variables
//
// Every value can be overridden with a JARVIS_ prefixed variable. Nested
// fields are separated by underscores.
//
// Examples:
//   - JARVIS_SIMILARITY_THRESHOLD=0.8
//   - JARVIS_KNOWLEDGE_BACKEND=sqlite
//   - JARVIS_EMBEDDING_PROVIDER=ollama
//   - JARVIS_LOGGING_LEVEL=debug
//
// # Similarity Threshold
//
// similarity.threshold is a tuning parameter, not a derived constant. A stored
// question answers an utterance only when its cosine similarity is strictly
// greater than the threshold.
package config
