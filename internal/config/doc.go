// Package config defines the format-agnostic model of a pipeline script,
// along with the Loader interface that produces it.
//
// A Script is an ordered list of statements over symbols and shared cells
// that were declared up front. The pipeline package executes statements in
// order, so a default update attached by one statement is seen only by
// functions declared after it. Concrete loaders, such as the HCL one, live
// in separate packages.
package config
