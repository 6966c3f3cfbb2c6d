package library

import (
	"cmp"
	"slices"

	"github.com/eunmann/rbx-export/pkg/pdb"
)

// playlistTree is the outcome of arranging decoded tree rows.
type playlistTree struct {
	nodes []Playlist
	// orphaned counts nodes whose parent chain never reaches the root,
	// either through a missing parent or a parent cycle.
	orphaned int
}

// buildPlaylistTree arranges nodes depth-first from the root (parent 0),
// ordering siblings by SortOrder then ID, and attaches entries sorted by
// EntryIndex. When a node id repeats the first row wins.
func buildPlaylistTree(nodes []pdb.PlaylistNode, entries []pdb.PlaylistEntry) playlistTree {
	byID := make(map[uint32]pdb.PlaylistNode, len(nodes))
	children := make(map[uint32][]pdb.PlaylistNode)
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = n
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	for _, c := range children {
		slices.SortStableFunc(c, func(a, b pdb.PlaylistNode) int {
			if r := cmp.Compare(a.SortOrder, b.SortOrder); r != 0 {
				return r
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	tracks := groupEntries(entries,
		func(e pdb.PlaylistEntry) uint32 { return e.PlaylistID },
		func(e pdb.PlaylistEntry) uint32 { return e.EntryIndex },
		func(e pdb.PlaylistEntry) uint32 { return e.TrackID })

	type frame struct {
		node  pdb.PlaylistNode
		depth int
		path  string
	}

	var out []Playlist
	placed := make(map[uint32]bool, len(byID))
	stack := make([]frame, 0, 16)
	pushChildren := func(parent uint32, depth int, prefix string) {
		c := children[parent]
		for i := len(c) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: c[i], depth: depth, path: prefix + c[i].Name})
		}
	}
	pushChildren(0, 0, "")

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if placed[f.node.ID] {
			continue
		}
		placed[f.node.ID] = true

		p := Playlist{
			ID:        f.node.ID,
			ParentID:  f.node.ParentID,
			SortOrder: f.node.SortOrder,
			Name:      f.node.Name,
			IsFolder:  f.node.IsFolder,
			Depth:     f.depth,
			Path:      f.path,
			TrackIDs:  []uint32{},
		}
		if !p.IsFolder && tracks[p.ID] != nil {
			p.TrackIDs = tracks[p.ID]
		}
		out = append(out, p)
		pushChildren(p.ID, f.depth+1, f.path+"/")
	}

	return playlistTree{nodes: out, orphaned: len(byID) - len(placed)}
}

// groupEntries groups entry rows by owner and orders each group by its
// entry index, keeping row order for equal indexes.
func groupEntries[E any](entries []E, owner, index, track func(E) uint32) map[uint32][]uint32 {
	grouped := make(map[uint32][]E)
	for _, e := range entries {
		grouped[owner(e)] = append(grouped[owner(e)], e)
	}
	out := make(map[uint32][]uint32, len(grouped))
	for id, g := range grouped {
		slices.SortStableFunc(g, func(a, b E) int { return cmp.Compare(index(a), index(b)) })
		ids := make([]uint32, len(g))
		for i, e := range g {
			ids[i] = track(e)
		}
		out[id] = ids
	}
	return out
}

func buildHistory(sessions []pdb.HistoryPlaylist, entries []pdb.HistoryEntry) []HistoryPlaylist {
	tracks := groupEntries(entries,
		func(e pdb.HistoryEntry) uint32 { return e.PlaylistID },
		func(e pdb.HistoryEntry) uint32 { return e.EntryIndex },
		func(e pdb.HistoryEntry) uint32 { return e.TrackID })

	out := make([]HistoryPlaylist, 0, len(sessions))
	for _, s := range sessions {
		ids := tracks[s.ID]
		if ids == nil {
			ids = []uint32{}
		}
		out = append(out, HistoryPlaylist{ID: s.ID, Name: s.Name, TrackIDs: ids})
	}
	return out
}
