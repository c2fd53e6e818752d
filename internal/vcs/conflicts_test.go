package vcs

import (
	"reflect"
	"testing"
)

func TestExtractConflictFilesMergeMarker(t *testing.T) {
	out := "Auto-merging src/main.ts\nCONFLICT (content): Merge conflict in src/main.ts\nAutomatic merge failed; fix conflicts and then commit the result.\n"
	got := ExtractConflictFiles(out)
	want := []string{"src/main.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractConflictFiles = %v, want %v", got, want)
	}
}

func TestExtractConflictFilesConventions(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "both modified status",
			output: "Unmerged paths:\n\tboth modified:   src/app.go\n\tboth added:      docs/new.md\n",
			want:   []string{"src/app.go", "docs/new.md"},
		},
		{
			name:   "porcelain UU lines",
			output: "UU src/app.go\nAA assets/logo.svg\nM  ok.go\n",
			want:   []string{"src/app.go", "assets/logo.svg"},
		},
		{
			name: "mixed conventions dedupe in order",
			output: "CONFLICT (content): Merge conflict in src/app.go\n" +
				"both modified:   src/app.go\n" +
				"UU src/other.go\n",
			want: []string{"src/app.go", "src/other.go"},
		},
		{
			name:   "no conflicts",
			output: "Already up to date.\n",
			want:   nil,
		},
		{
			name:   "rename conflict marker",
			output: "CONFLICT (rename/delete): Merge conflict in pkg/renamed.go\n",
			want:   []string{"pkg/renamed.go"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractConflictFiles(tc.output)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ExtractConflictFiles = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasConflictMarkers(t *testing.T) {
	if HasConflictMarkers("Already up to date.\n") {
		t.Error("clean output reported as conflicted")
	}
	if !HasConflictMarkers("UU src/app.go\n") {
		t.Error("UU line not recognized")
	}
}

func TestParseShortstat(t *testing.T) {
	cases := []struct {
		out  string
		want ChangeSummary
	}{
		{" 3 files changed, 10 insertions(+), 2 deletions(-)\n",
			ChangeSummary{FilesChanged: 3, Insertions: 10, Deletions: 2}},
		{" 1 file changed, 1 insertion(+)\n",
			ChangeSummary{FilesChanged: 1, Insertions: 1}},
		{" 2 files changed, 5 deletions(-)\n",
			ChangeSummary{FilesChanged: 2, Deletions: 5}},
		{"", ChangeSummary{}},
	}
	for _, tc := range cases {
		if got := parseShortstat(tc.out); got != tc.want {
			t.Errorf("parseShortstat(%q) = %+v, want %+v", tc.out, got, tc.want)
		}
	}
}
