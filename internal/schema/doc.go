// Package schema holds the catalog of worker methods and validates call
// params against their JSON Schemas before anything is written to the worker.
package schema
