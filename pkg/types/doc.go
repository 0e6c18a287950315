// Package types defines the Catalog and QueryStore interfaces, the SavedQuery
// entity, configuration, and the standard errors for queryshelf.
package types
