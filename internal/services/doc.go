// Package services defines the shared error taxonomy and context plumbing
// used by capability providers and pipeline stages.
package services
