// Package hcl provides the HCL implementation of config.Loader. It parses
// pipeline scripts, translates HCL expression syntax trees into expression
// graphs over the declared symbols and shared cells, and decodes literal
// values into tensors through cty.
package hcl
