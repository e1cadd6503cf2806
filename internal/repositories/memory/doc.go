// Package memory provides mutex-guarded in-memory stores with the same
// contracts as the postgres repositories. They back the demo profile
// (storage.driver: memory) and service tests.
package memory
