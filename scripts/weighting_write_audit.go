package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
)

type callSite struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Func     string `json:"func"`
	Receiver string `json:"receiver,omitempty"`
	Method   string `json:"method"`
}

type auditReport struct {
	PackagesScanned       int        `json:"packages_scanned"`
	ReplaceAllCallsites   []callSite `json:"replace_all_callsites"`
	DirectRepoWrites      []callSite `json:"direct_repo_writes"`
	DirectRepoWriteCount  int        `json:"direct_repo_write_count"`
	ReposHeldOutsideStore []string   `json:"repos_held_outside_store"`
	// TableOwners lists the aggregates allowed to write each table.
	TableOwners        map[string][]string `json:"table_owners"`
	TxOwningAggregates []string            `json:"tx_owning_aggregates"`
}

// Packages allowed to write weighting tables directly.
var ownerDirs = []string{
	filepath.Join("internal", "data", "aggregates"),
	filepath.Join("internal", "data", "repos"),
	filepath.Join("internal", "data", "db"),
}

var weightingRepoTypes = map[string]bool{
	"WeightingPlanRepo":            true,
	"WeightingTargetRepo":          true,
	"ResponseWeightingContextRepo": true,
	"ResponseWeightRepo":           true,
	"SavedReportRepo":              true,
}

var repoWriteMethods = map[string]bool{
	"Create":             true,
	"CreateInBatches":    true,
	"Upsert":             true,
	"DetachFromParent":   true,
	"DetachAll":          true,
	"DeleteByIDs":        true,
	"DeleteAll":          true,
	"DeleteByContextIDs": true,
	"ClearDataWeighted":  true,
}

const replaceAllMethod = "UpdateAllWeightingPlans"

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	dirs, err := goDirs(root)
	if err != nil {
		exitf("walk %s: %v", root, err)
	}

	var report auditReport
	report.TableOwners, report.TxOwningAggregates = contractSummary()
	held := map[string]bool{}
	fset := token.NewFileSet()
	for _, dir := range dirs {
		pkgs, err := parser.ParseDir(fset, dir, func(fi os.FileInfo) bool {
			name := fi.Name()
			return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
		}, 0)
		if err != nil {
			exitf("parse dir %s: %v", dir, err)
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			rel = dir
		}
		owner := isOwner(rel)
		for _, pkg := range pkgs {
			report.PackagesScanned++
			for filePath, f := range pkg.Files {
				relFile, err := filepath.Rel(root, filePath)
				if err != nil {
					relFile = filePath
				}
				relFile = filepath.ToSlash(relFile)
				report.ReplaceAllCallsites = append(report.ReplaceAllCallsites, findCalls(fset, f, relFile, func(_ string, method string) bool {
					return method == replaceAllMethod
				})...)
				if owner {
					continue
				}
				fields := repoFields(f)
				for structName, names := range fields {
					for _, n := range names {
						held[structName+"."+n] = true
					}
				}
				writes := findCalls(fset, f, relFile, func(receiver, method string) bool {
					return repoWriteMethods[method] && isHeldRepo(fields, receiver)
				})
				report.DirectRepoWrites = append(report.DirectRepoWrites, writes...)
			}
		}
	}

	sortSites(report.ReplaceAllCallsites)
	sortSites(report.DirectRepoWrites)
	report.DirectRepoWriteCount = len(report.DirectRepoWrites)
	for k := range held {
		report.ReposHeldOutsideStore = append(report.ReposHeldOutsideStore, k)
	}
	sort.Strings(report.ReposHeldOutsideStore)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
	if report.DirectRepoWriteCount > 0 {
		os.Exit(2)
	}
}

func contractSummary() (map[string][]string, []string) {
	var owning []string
	for _, c := range domainagg.Contracts() {
		if c.RequiresAggregateOwnedTx() {
			owning = append(owning, c.Name)
		}
	}
	sort.Strings(owning)
	return domainagg.TableOwners(), owning
}

func goDirs(root string) ([]string, error) {
	var out []string
	for _, top := range []string{"internal", "cmd"} {
		start := filepath.Join(root, top)
		if _, err := os.Stat(start); err != nil {
			continue
		}
		err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != start && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			out = append(out, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isOwner(rel string) bool {
	for _, d := range ownerDirs {
		if rel == d || strings.HasPrefix(rel, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// repoFields maps struct name to the names of its fields typed as weighting repos.
func repoFields(file *ast.File) map[string][]string {
	out := map[string][]string{}
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok || !weightingRepoTypes[sel.Sel.Name] {
					continue
				}
				for _, n := range field.Names {
					out[ts.Name.Name] = append(out[ts.Name.Name], n.Name)
				}
			}
		}
	}
	return out
}

func isHeldRepo(fields map[string][]string, receiver string) bool {
	for _, names := range fields {
		for _, n := range names {
			if n == receiver {
				return true
			}
		}
	}
	return false
}

// findCalls reports calls of the form x.Method(...) and x.field.Method(...)
// accepted by match, where receiver is the innermost selector name.
func findCalls(fset *token.FileSet, file *ast.File, relFile string, match func(receiver, method string) bool) []callSite {
	var out []callSite
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			receiver := ""
			switch x := fnSel.X.(type) {
			case *ast.SelectorExpr:
				receiver = x.Sel.Name
			case *ast.Ident:
				receiver = x.Name
			}
			method := fnSel.Sel.Name
			if !match(receiver, method) {
				return true
			}
			out = append(out, callSite{
				File:     relFile,
				Line:     fset.Position(call.Pos()).Line,
				Func:     fd.Name.Name,
				Receiver: receiver,
				Method:   method,
			})
			return true
		})
	}
	return out
}

func sortSites(sites []callSite) {
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].File == sites[j].File {
			return sites[i].Line < sites[j].Line
		}
		return sites[i].File < sites[j].File
	})
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
