// Package asset loads blueprint graphs from YAML or JSON files.
//
// Each *.bp.yaml, *.bp.yml or *.bp.json file holds one top-level graph and
// any number of inline sub-graphs (see [File]). The [Loader] walks a file
// system through afero and returns a [FileEnumerator] that decodes files
// lazily, in lexical path order.
//
// A file that cannot be parsed does not fail enumeration. It is returned as a
// broken handle whose Nodes call reports MALFORMED_GRAPH, so the pipeline
// skips that asset and keeps going. Only I/O errors while listing or reading
// files are reported as ENUMERATOR_FAILED.
//
// When a file omits "path", the asset path is derived from the file's
// location relative to the enumerated root:
//
//	Characters/BP_Hero.bp.yaml -> /Characters/BP_Hero
package asset
