package recipe

import (
	"strings"
	"testing"
)

const frontRecipe = `# syntax=docker/dockerfile:1
FROM node:20-alpine AS base

WORKDIR /app
COPY bundle/bundle.js ./bundle/
COPY bundle/model.json ./bundle/
# static assets
COPY ["lib/", "./lib/"]

FROM base AS runtime
COPY --from=base /app/dist ./dist
RUN apk add --no-cache tini \
    && echo ok
EXPOSE 8080
CMD ["node", "bundle/bundle.js"]
`

func TestParseKeepsSourceLines(t *testing.T) {
	r, err := Parse([]byte(frontRecipe))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := string(r.Render()); got != frontRecipe {
		t.Errorf("render changed an untouched recipe:\n%s", got)
	}

	run := r.Instructions[r.Index(func(i Instruction) bool { return i.Command == "run" })]
	if len(run.raw) != 2 {
		t.Errorf("expected continuation lines to stay with RUN, got %q", run.raw)
	}
}

func TestRequirements(t *testing.T) {
	tests := []struct {
		name   string
		recipe string
		want   Requirements
	}{
		{
			name:   "front",
			recipe: frontRecipe,
			want:   Requirements{Bundle: true, Lib: true, ModelJSON: true},
		},
		{
			name:   "dist directory",
			recipe: "FROM nginx\nCOPY ./dist/ /usr/share/nginx/html/\n",
			want:   Requirements{Dist: true},
		},
		{
			name:   "stage copies are not context reads",
			recipe: "FROM node AS b\nRUN make\nFROM nginx\nCOPY --from=b /src/dist /html\nCOPY --from=b lib /lib\n",
			want:   Requirements{},
		},
		{
			name:   "unrelated sources",
			recipe: "FROM node\nCOPY package.json pnpm-lock.yaml ./\nCOPY libraries/ ./libraries/\n",
			want:   Requirements{},
		},
		{
			name:   "bundle map",
			recipe: "FROM node\nADD bundle/bundle.js.map /app/\n",
			want:   Requirements{Bundle: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.recipe))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := r.Requirements(); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCopiesPathAndSources(t *testing.T) {
	r, err := Parse([]byte(frontRecipe))
	if err != nil {
		t.Fatal(err)
	}
	if r.CopiesPath("dist") {
		t.Error("stage copy of dist reported as a context copy")
	}
	if !r.CopiesPath("./lib/") {
		t.Error("expected lib to be copied")
	}

	want := []string{"bundle/bundle.js", "bundle/model.json", "lib"}
	got := r.Sources()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected sources %v, got %v", want, got)
	}
}

func TestPlacePolicy(t *testing.T) {
	copyDist, err := NewInstruction("COPY dist/ ./dist/")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		recipe string
		want   Placement
		output string
	}{
		{
			name:   "after last artifact copy",
			recipe: "FROM node\nCOPY bundle/bundle.js ./bundle/\n# serve\n\nCMD [\"node\"]\n",
			want:   PlacedAfter,
			output: "FROM node\nCOPY bundle/bundle.js ./bundle/\nCOPY dist/ ./dist/\n# serve\n\nCMD [\"node\"]\n",
		},
		{
			name:   "before entry",
			recipe: "FROM node\nWORKDIR /app\nENTRYPOINT [\"node\"]\nCMD [\"x\"]\n",
			want:   PlacedBefore,
			output: "FROM node\nWORKDIR /app\nCOPY dist/ ./dist/\nENTRYPOINT [\"node\"]\nCMD [\"x\"]\n",
		},
		{
			name:   "appended",
			recipe: "FROM node\nWORKDIR /app\n",
			want:   PlacedAppended,
			output: "FROM node\nWORKDIR /app\nCOPY dist/ ./dist/\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.recipe))
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Place(copyDist, IsArtifactCopy, IsEntry); got != tt.want {
				t.Errorf("expected placement %s, got %s", tt.want, got)
			}
			if got := string(r.Render()); got != tt.output {
				t.Errorf("unexpected output:\n%s", got)
			}
			if !r.Requirements().Dist {
				t.Error("inserted copy not reflected in requirements")
			}
		})
	}
}

func TestNewInstructionRejectsMultipleLines(t *testing.T) {
	if _, err := NewInstruction("COPY a b\nCOPY c d"); err == nil {
		t.Fatal("expected error")
	}
}
