// SPDX-License-Identifier: MIT

// Package language knows which file extensions are tracked and how to turn a
// git tree into per-extension byte shares.
package language

import (
	"math"
	"path"
	"strings"

	"github.com/kerryghan-relot/github-language-analysis/internal/github"
)

// Family groups related extensions.
type Family string

const (
	FamilyWeb        Family = "web"
	FamilySystems    Family = "systems"
	FamilyJVM        Family = "jvm"
	FamilyDotNet     Family = "dotnet"
	FamilyScripting  Family = "scripting"
	FamilyShell      Family = "shell"
	FamilyFunctional Family = "functional"
	FamilyMobile     Family = "mobile"
	FamilyData       Family = "data"
	FamilyLegacy     Family = "legacy"
)

type group struct {
	family     Family
	extensions []string
}

var groups = []group{
	{FamilyWeb, []string{".js", ".jsx", ".ts", ".tsx", ".html", ".css", ".scss", ".vue"}},
	{FamilySystems, []string{".c", ".h", ".cpp", ".cc", ".hpp", ".rs", ".go", ".asm", ".s"}},
	{FamilyJVM, []string{".java", ".kt", ".scala"}},
	{FamilyDotNet, []string{".cs", ".vb", ".fs"}},
	{FamilyScripting, []string{".py", ".rb", ".php", ".pl", ".lua"}},
	{FamilyShell, []string{".sh", ".bat", ".cmd", ".ps1"}},
	{FamilyFunctional, []string{".hs", ".ex"}},
	{FamilyMobile, []string{".swift", ".dart", ".m"}},
	{FamilyData, []string{".r", ".jl", ".sql"}},
	{FamilyLegacy, []string{".cob", ".cbl", ".f90", ".f95", ".f", ".pas"}},
}

var (
	extensions []string
	familyOf   = map[string]Family{}
)

func init() {
	for _, g := range groups {
		for _, ext := range g.extensions {
			extensions = append(extensions, ext)
			familyOf[ext] = g.family
		}
	}
}

// SupportedExtensions returns the tracked extensions in column order.
func SupportedExtensions() []string {
	out := make([]string, len(extensions))
	copy(out, extensions)
	return out
}

// IsSupported reports whether ext (with its leading dot) is tracked.
// Matching is case-sensitive: ".R" is not ".r".
func IsSupported(ext string) bool {
	_, ok := familyOf[ext]
	return ok
}

// FamilyOf returns the family of a supported extension.
func FamilyOf(ext string) (Family, bool) {
	f, ok := familyOf[ext]
	return f, ok
}

// Families returns every family in declaration order.
func Families() []Family {
	out := make([]Family, len(groups))
	for i, g := range groups {
		out[i] = g.family
	}
	return out
}

// Extensions returns the extensions of a family.
func Extensions(f Family) []string {
	for _, g := range groups {
		if g.family == f {
			return append([]string(nil), g.extensions...)
		}
	}
	return nil
}

// Shares sums blob sizes per supported extension and normalises them to
// fractions of the total, rounded to four decimals. Trees without any
// supported file yield an empty map.
func Shares(entries []github.TreeEntry) map[string]float64 {
	sizes := make(map[string]int64)
	var total int64
	for _, e := range entries {
		if !e.IsBlob() {
			continue
		}
		ext := Ext(e.Path)
		if !IsSupported(ext) {
			continue
		}
		sizes[ext] += e.Size
		total += e.Size
	}

	shares := make(map[string]float64, len(sizes))
	if total == 0 {
		return shares
	}
	for ext, size := range sizes {
		shares[ext] = Round(float64(size) / float64(total))
	}
	return shares
}

// Ext returns the extension of the last element of a slash-separated path.
// Leading dots of the name do not start an extension: ".bashrc" has none.
func Ext(p string) string {
	name := strings.TrimLeft(path.Base(p), ".")
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}

// Round rounds to four decimals, halves away from zero.
func Round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
