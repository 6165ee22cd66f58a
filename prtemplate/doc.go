// Package prtemplate builds pull request titles and bodies. A Template is read
// from a YAML file or assembled from flags; Render substitutes single-brace
// {VAR} placeholders with the run parameters.
package prtemplate
