// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"os"

	"github.com/BurntSushi/toml"
)

// dependencyAllowedKeys are the only table keys a [dependencies] entry may
// carry and still be considered dumpable. A manifest TODO carried over from
// the source this format was distilled from: only [dependencies] is read,
// never [build-dependencies] or platform-scoped dependency tables.
var dependencyAllowedKeys = map[string]struct{}{
	"version":  {},
	"git":      {},
	"registry": {},
}

type manifestPackage struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	License string   `toml:"license"`
	Authors []string `toml:"authors"`
}

type manifestDoc struct {
	Package      manifestPackage        `toml:"package"`
	Dependencies map[string]interface{} `toml:"dependencies"`
}

// Manifest is a parsed Cargo.toml-like package manifest: a required
// [package] table and a [dependencies] table.
type Manifest struct {
	doc manifestDoc
}

// ManifestFromFile reads and parses the manifest at path.
func ManifestFromFile(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErr(KindFileNotFound, path, err)
		}
		return nil, newErr(KindIO, "could not read manifest", err)
	}
	return ManifestFromBytes(raw)
}

// ManifestFromBytes parses a manifest from raw TOML bytes.
func ManifestFromBytes(raw []byte) (*Manifest, error) {
	var doc manifestDoc
	if _, err := toml.Decode(string(raw), &doc); err != nil {
		return nil, newErr(KindParseError, "could not parse manifest", err)
	}
	if doc.Package.Name == "" || doc.Package.Version == "" {
		return nil, newErr(KindValidationError, "[package] requires name and version", nil)
	}
	return &Manifest{doc: doc}, nil
}

// Populate fills ctx's PackageInfo and dependency list from the manifest.
// It returns the names of dependencies excluded for carrying an attribute
// this implementation does not understand; those dependencies are retained
// nowhere but the returned slice and are absent from the encoded dep table.
func (m *Manifest) Populate(ctx *PackageContext) (excluded []string, err error) {
	ctx.SetPackageInfo(PackageInfo{
		Name:    m.doc.Package.Name,
		Version: m.doc.Package.Version,
		License: m.doc.Package.License,
		Authors: m.doc.Package.Authors,
	})

	for name, raw := range m.doc.Dependencies {
		switch v := raw.(type) {
		case string:
			ctx.AddDepInfo(DepInfo{Name: name, VerReq: v, Src: SrcCratesIo, Dump: true})
		case map[string]interface{}:
			dumpable := true
			for k := range v {
				if _, ok := dependencyAllowedKeys[k]; !ok {
					dumpable = false
					break
				}
			}
			if !dumpable {
				excluded = append(excluded, name)
				continue
			}
			dep := DepInfo{Name: name, Src: SrcCratesIo, Dump: true}
			if ver, ok := v["version"].(string); ok {
				dep.VerReq = ver
			}
			if git, ok := v["git"].(string); ok {
				dep.Src = SrcGit
				dep.SrcPath = git
			} else if reg, ok := v["registry"].(string); ok {
				dep.Src = SrcRegistry
				dep.SrcPath = reg
			}
			ctx.AddDepInfo(dep)
		default:
			return excluded, newErr(KindParseError, "dependency entry must be a string or table", nil)
		}
	}
	return excluded, nil
}
