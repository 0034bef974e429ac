// SPDX-License-Identifier: MPL-2.0

package multiplex

import (
	"cmp"
	"slices"

	"github.com/varibuild/varibuild/pkg/types"
)

type (
	// Platform is a build target and its suffix precedence list, highest
	// first. The base suffix is implied and must not be listed.
	Platform struct {
		Name     types.PlatformName
		Suffixes []types.PlatformSuffix
	}

	// BuildTask is the work assigned to one platform. A file appears in at
	// most one of the two sets.
	BuildTask struct {
		// Platform is empty for the single task of a platform-agnostic build.
		Platform     types.PlatformName
		FilesToEmit  *FileSet
		FilesToCheck *FileSet
	}
)

// SearchSuffixes returns the platform suffixes followed by the base suffix.
func (p Platform) SearchSuffixes() []types.PlatformSuffix {
	return append(slices.Clone(p.Suffixes), "")
}

func newBuildTask(platform types.PlatformName) *BuildTask {
	return &BuildTask{Platform: platform, FilesToEmit: &FileSet{}, FilesToCheck: &FileSet{}}
}

// Files returns the emit set followed by the check set.
func (t *BuildTask) Files() []string {
	return append(t.FilesToEmit.Paths(), t.FilesToCheck.Paths()...)
}

func (t *BuildTask) emit(file string) {
	t.FilesToEmit.Add(file)
}

func (t *BuildTask) check(file string) {
	if !t.FilesToEmit.Contains(file) {
		t.FilesToCheck.Add(file)
	}
}

// SortForMultiplex returns a copy of files ordered so that each group is
// contiguous. Groups are ordered by key and files within a group by path.
func SortForMultiplex(files []string, platforms []Platform) []string {
	g := NewGrouper(platforms)
	out := slices.Clone(files)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Or(cmp.Compare(g.Key(a), g.Key(b)), cmp.Compare(a, b))
	})
	return out
}

// Multiplex partitions files into one task per platform, in platform order.
// files must keep each group contiguous (see SortForMultiplex); only one
// group is classified at a time. With no platforms a single task receives
// every file: in its emit set, or its check set when checkOnly is set.
func Multiplex(files []string, platforms []Platform, checkOnly bool) []*BuildTask {
	if len(platforms) == 0 {
		task := newBuildTask("")
		for _, f := range files {
			if checkOnly {
				task.check(f)
			} else {
				task.emit(f)
			}
		}
		return []*BuildTask{task}
	}

	tasks := make([]*BuildTask, len(platforms))
	searches := make([][]types.PlatformSuffix, len(platforms))
	for i, p := range platforms {
		tasks[i] = newBuildTask(p.Name)
		searches[i] = p.SearchSuffixes()
	}

	g := NewGrouper(platforms)
	var group *FileClassification
	for _, f := range files {
		key, suffix := g.Split(f)
		if group != nil && group.Key != key {
			assignGroup(group, tasks, searches, checkOnly)
			group = nil
		}
		if group == nil {
			group = newClassification(key)
		}
		group.add(f, suffix)
	}
	if group != nil {
		assignGroup(group, tasks, searches, checkOnly)
	}
	return tasks
}

// assignGroup lets every platform claim its variant of group, then hands
// the unclaimed variants to the first task for checking.
func assignGroup(group *FileClassification, tasks []*BuildTask, searches [][]types.PlatformSuffix, checkOnly bool) {
	for i, task := range tasks {
		v, ok := group.Select(searches[i])
		if !ok {
			continue
		}
		switch {
		case checkOnly:
			task.check(v.File)
			v.Status = StatusChecked
		case v.Status == StatusBuilt:
			task.check(v.File)
		default:
			task.emit(v.File)
			v.Status = StatusBuilt
		}
	}

	for _, v := range group.Unclaimed() {
		tasks[0].check(v.File)
		v.Status = StatusChecked
	}
}
