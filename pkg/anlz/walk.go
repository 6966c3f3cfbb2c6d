package anlz

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
)

// WalkSidecars yields every sidecar file under root, depth first, with each
// directory's files in name order before its subdirectories. The traversal
// uses an explicit stack. Unreadable directories are skipped and symlinked
// directories are not followed.
func WalkSidecars(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		stack := []string{root}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			var subdirs []string
			for _, e := range entries {
				p := filepath.Join(dir, e.Name())
				if e.IsDir() {
					subdirs = append(subdirs, p)
					continue
				}
				if e.Type().IsRegular() && IsSidecar(e.Name()) {
					if !yield(p) {
						return
					}
				}
			}
			slices.Reverse(subdirs)
			stack = append(stack, subdirs...)
		}
	}
}
