/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/importmap"
	"bennypowers.dev/chunktree/packagejson"
)

// DefaultExtensions are tried, in order, when a request names no existing file.
var DefaultExtensions = []string{".js", ".mjs", ".jsx", ".ts", ".tsx", ".mts", ".cjs", ".json"}

// DefaultCacheSize bounds the number of memoized resolutions.
const DefaultCacheSize = 4096

type result struct {
	path string
	err  error
}

// NodeResolver resolves specifiers the way bundlers targeting the browser do.
// Results, including failures, are memoized per (context directory, specifier).
// NodeResolver is safe for concurrent use.
type NodeResolver struct {
	fs         fs.FileSystem
	rootDir    string
	logger     Logger
	extensions []string
	aliases    map[string]string
	importMap  *importmap.ImportMap
	conditions []string
	selfPkg    *packagejson.PackageJSON
	workspaces map[string]string
	pkgCache   *packagejson.Cache
	cache      *lru.Cache[string, result]
}

// NewNodeResolver creates a resolver for the project rooted at rootDir.
// The root package.json, when present, enables self-referencing imports and
// resolution of its workspace packages in place.
func NewNodeResolver(fsys fs.FileSystem, rootDir string, logger Logger) *NodeResolver {
	if logger == nil {
		logger = nopLogger{}
	}
	r := &NodeResolver{
		fs:         fsys,
		rootDir:    rootDir,
		logger:     logger,
		extensions: DefaultExtensions,
		selfPkg:    LoadRootPackage(fsys, rootDir),
		pkgCache:   packagejson.NewCache(),
	}
	r.cache = newCache()
	if r.selfPkg != nil && len(r.selfPkg.WorkspacePatterns()) > 0 {
		packages, err := DiscoverWorkspacePackages(fsys, rootDir)
		if err != nil {
			logger.Warning("discovering workspace packages: %v", err)
		}
		r.workspaces = make(map[string]string, len(packages))
		for _, pkg := range packages {
			r.logger.Debug("workspace package %s at %s", pkg.Name, pkg.Path)
			r.workspaces[pkg.Name] = pkg.Path
		}
	}
	return r
}

func newCache() *lru.Cache[string, result] {
	// DefaultCacheSize is positive; error is impossible
	cache, _ := lru.New[string, result](DefaultCacheSize)
	return cache
}

// clone copies r with a fresh resolution cache, so that configuration changes
// never observe stale results.
func (r *NodeResolver) clone() *NodeResolver {
	c := *r
	c.cache = newCache()
	return &c
}

// WithExtensions returns a new resolver probing the given extensions.
func (r *NodeResolver) WithExtensions(extensions []string) *NodeResolver {
	c := r.clone()
	c.extensions = make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions = append(c.extensions, ext)
	}
	return c
}

// WithAliases returns a new resolver that rewrites specifiers starting with an
// alias key. Alias targets are paths; relative targets are taken from the root.
// e.g., {"@": "src"} resolves "@/pages/home" to "<root>/src/pages/home".
func (r *NodeResolver) WithAliases(aliases map[string]string) *NodeResolver {
	c := r.clone()
	c.aliases = make(map[string]string, len(aliases))
	for key, target := range aliases {
		key = strings.TrimSuffix(key, "/")
		if !filepath.IsAbs(target) {
			target = filepath.Join(r.rootDir, target)
		}
		c.aliases[key] = target
	}
	return c
}

// WithImportMap returns a new resolver that maps specifiers through im before
// any other lookup. Mapped web paths are taken relative to the root.
func (r *NodeResolver) WithImportMap(im *importmap.ImportMap) *NodeResolver {
	c := r.clone()
	c.importMap = im
	return c
}

// WithConditions returns a new resolver using the given export condition priority.
func (r *NodeResolver) WithConditions(conditions []string) *NodeResolver {
	c := r.clone()
	c.conditions = conditions
	return c
}

// Resolve implements Resolver.
func (r *NodeResolver) Resolve(contextDir, specifier string) (string, error) {
	key := contextDir + "\x00" + specifier
	if res, ok := r.cache.Get(key); ok {
		return res.path, res.err
	}
	resolved, err := r.resolve(contextDir, specifier)
	if err != nil {
		err = fmt.Errorf("%w: %q from %s: %w", ErrNotFound, specifier, contextDir, err)
	}
	r.cache.Add(key, result{path: resolved, err: err})
	return resolved, err
}

func (r *NodeResolver) resolve(contextDir, specifier string) (string, error) {
	request := stripQuery(specifier)
	if request == "" {
		return "", fmt.Errorf("empty request")
	}

	if target, ok := r.applyAlias(request); ok {
		return r.probeOrFail(target)
	}

	if mapped, ok := r.importMap.Resolve(request, ToWebPath(r.rootDir, contextDir)+"/"); ok {
		r.logger.Debug("import map: %s -> %s", request, mapped)
		switch {
		case strings.HasPrefix(mapped, "/"):
			return r.probeOrFail(filepath.Join(r.rootDir, filepath.FromSlash(mapped)))
		case IsRelative(mapped):
			return r.probeOrFail(filepath.Join(r.rootDir, filepath.FromSlash(mapped)))
		default:
			return "", fmt.Errorf("import map target %q is not a local path", mapped)
		}
	}

	switch {
	case IsRelative(request):
		return r.probeOrFail(filepath.Join(contextDir, filepath.FromSlash(request)))
	case strings.HasPrefix(request, "/"):
		// Filesystem path first, then web-style root-relative path
		if resolved, ok := r.probe(filepath.FromSlash(request)); ok {
			return resolved, nil
		}
		return r.probeOrFail(filepath.Join(r.rootDir, filepath.FromSlash(request)))
	case strings.HasPrefix(request, "#"):
		return r.resolvePackageImport(request)
	case !IsBareSpecifier(request):
		return "", fmt.Errorf("remote URL")
	default:
		return r.resolveBare(contextDir, request)
	}
}

// applyAlias rewrites request using the longest matching alias key.
func (r *NodeResolver) applyAlias(request string) (string, bool) {
	if len(r.aliases) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(r.aliases))
	for key := range r.aliases {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, key := range keys {
		if request == key {
			return r.aliases[key], true
		}
		if rest, ok := strings.CutPrefix(request, key+"/"); ok {
			return filepath.Join(r.aliases[key], filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

// resolvePackageImport resolves "#internal" imports through the root package.json.
func (r *NodeResolver) resolvePackageImport(request string) (string, error) {
	if r.selfPkg == nil {
		return "", fmt.Errorf("no package.json in %s", r.rootDir)
	}
	target, err := r.selfPkg.ResolveImport(request, r.resolveOptions())
	if err != nil {
		return "", err
	}
	return r.probeOrFail(filepath.Join(r.rootDir, filepath.FromSlash(target)))
}

// resolveBare resolves a package specifier. Self-references to the root
// package and workspace packages resolve locally; everything else is looked
// up in node_modules directories from contextDir upwards.
func (r *NodeResolver) resolveBare(contextDir, request string) (string, error) {
	pkgName := PackageName(request)
	subpath := "." + strings.TrimPrefix(request, pkgName)

	if r.selfPkg != nil && r.selfPkg.Name == pkgName {
		return r.resolvePackageSubpath(r.selfPkg, r.rootDir, subpath)
	}

	if pkgDir, ok := r.workspaces[pkgName]; ok {
		pkg, err := r.pkgCache.Load(r.fs, filepath.Join(pkgDir, "package.json"))
		if err != nil {
			return "", err
		}
		return r.resolvePackageSubpath(pkg, pkgDir, subpath)
	}

	dir := contextDir
	for {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(pkgName))
		if fs.IsDir(r.fs, pkgDir) {
			pkg, err := r.pkgCache.Load(r.fs, filepath.Join(pkgDir, "package.json"))
			if err != nil {
				// Packages without a manifest are plain directories
				return r.probeOrFail(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
			}
			return r.resolvePackageSubpath(pkg, pkgDir, subpath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package %q is not installed", pkgName)
		}
		dir = parent
	}
}

// resolvePackageSubpath resolves a subpath within a package directory, using
// exports resolution first with fallback to the direct path only if no exports
// are defined.
func (r *NodeResolver) resolvePackageSubpath(pkg *packagejson.PackageJSON, pkgDir, subpath string) (string, error) {
	resolved, err := pkg.ResolveExport(subpath, r.resolveOptions())
	if err == nil {
		return r.probeOrFail(filepath.Join(pkgDir, filepath.FromSlash(resolved)))
	}

	// Packages with exports enforce them
	if pkg.Exports != nil {
		return "", fmt.Errorf("%s of %s: %w", subpath, pkg.Name, err)
	}

	if subpath == "." {
		return r.probeOrFail(filepath.Join(pkgDir, filepath.FromSlash(pkg.EntryPoint())))
	}
	return r.probeOrFail(filepath.Join(pkgDir, filepath.FromSlash(strings.TrimPrefix(subpath, "./"))))
}

func (r *NodeResolver) resolveOptions() *packagejson.ResolveOptions {
	if len(r.conditions) == 0 {
		return nil
	}
	return &packagejson.ResolveOptions{Conditions: r.conditions}
}

func (r *NodeResolver) probeOrFail(candidate string) (string, error) {
	if resolved, ok := r.probe(candidate); ok {
		return resolved, nil
	}
	return "", fmt.Errorf("no file at %s", candidate)
}

// probe looks for candidate as a file, then with each extension, then as a
// directory index.
func (r *NodeResolver) probe(candidate string) (string, bool) {
	if fs.IsFile(r.fs, candidate) {
		return candidate, true
	}
	for _, ext := range r.extensions {
		if fs.IsFile(r.fs, candidate+ext) {
			return candidate + ext, true
		}
	}
	if fs.IsDir(r.fs, candidate) {
		for _, ext := range r.extensions {
			index := filepath.Join(candidate, "index"+ext)
			if fs.IsFile(r.fs, index) {
				return index, true
			}
		}
	}
	return "", false
}
