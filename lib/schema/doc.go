// Package schema holds the per-kind attribute rules of dODM models.
//
// An Entry lists the attributes a kind requires at construction, the attributes it admits, an
// optional location field whose value is geocoded into "<field>_loc", and the indexes to create
// in the document store. The admissible set always contains the required attributes, the
// identifier "_id" and, if declared, "<field>_loc".
//
// Entries are created from Definitions, usually loaded from a YAML file with LoadFile, and
// collected in a Registry during bootstrap. After Freeze the registry rejects new entries.
package schema
