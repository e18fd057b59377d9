// Package policy holds the matching rules that decide whether a statement
// applies to an authorisation request: action membership and segment-wise
// glob matching of resource patterns against resource paths.
package policy
