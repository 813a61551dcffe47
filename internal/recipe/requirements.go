package recipe

import "strings"

// Artifact paths, relative to a build context, that recipes are known to copy.
const (
	BundleDir    = "bundle"
	BundleFile   = "bundle/bundle.js"
	BundleMap    = "bundle/bundle.js.map"
	ModelFile    = "bundle/model.json"
	LibDir       = "lib"
	DistDir      = "dist"
	DistIndex    = "dist/index.html"
	BuildDir     = "build"
	OutDir       = "out"
	DistBundle   = "dist/bundle"
	IgnoreMarker = ".dockerignore"
)

// Requirements lists the artifact categories a recipe copies from its context.
type Requirements struct {
	Bundle    bool
	Lib       bool
	Dist      bool
	ModelJSON bool
}

// Any reports whether at least one artifact is required.
func (r Requirements) Any() bool {
	return r.Bundle || r.Lib || r.Dist || r.ModelJSON
}

func (r Requirements) String() string {
	var names []string
	if r.Bundle {
		names = append(names, "bundle")
	}
	if r.Lib {
		names = append(names, "lib")
	}
	if r.Dist {
		names = append(names, "dist")
	}
	if r.ModelJSON {
		names = append(names, "model.json")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Requirements derives the artifact requirements from the recipe's context
// copies. Copies between stages are ignored.
func (r *Recipe) Requirements() Requirements {
	var req Requirements
	for _, inst := range r.Instructions {
		for _, src := range inst.Sources() {
			classify(src, &req)
		}
	}
	return req
}

// IsArtifactCopy matches context copies of any known artifact.
func IsArtifactCopy(inst Instruction) bool {
	var req Requirements
	for _, src := range inst.Sources() {
		classify(src, &req)
	}
	return req.Any()
}

func classify(src string, req *Requirements) {
	switch {
	case src == ModelFile:
		req.ModelJSON = true
	case src == BundleDir:
		req.Bundle = true
	case strings.HasPrefix(src, BundleFile):
		req.Bundle = true
	case src == LibDir || strings.HasPrefix(src, LibDir+"/"):
		req.Lib = true
	case src == DistDir || strings.HasPrefix(src, DistDir+"/"):
		req.Dist = true
	}
}
