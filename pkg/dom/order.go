package dom

import "golang.org/x/net/html"

// Compare reports the document-order relation of a and b: -1 when b follows a,
// 1 when b precedes a, and 0 when they are the same node or live in different
// trees. An ancestor precedes its descendants.
//
// The relation is derived from the live parent/sibling links at call time so it
// stays correct when nodes are inserted or removed between calls.
func Compare(a, b *html.Node) int {
	if a == nil || b == nil || a == b {
		return 0
	}

	pa := ancestry(a)
	pb := ancestry(b)
	if pa[0] != pb[0] {
		return 0
	}

	i := 0
	for i < len(pa) && i < len(pb) && pa[i] == pb[i] {
		i++
	}
	switch {
	case i == len(pa):
		return -1
	case i == len(pb):
		return 1
	}

	for c := pa[i].NextSibling; c != nil; c = c.NextSibling {
		if c == pb[i] {
			return -1
		}
	}
	for c := pa[i].PrevSibling; c != nil; c = c.PrevSibling {
		if c == pb[i] {
			return 1
		}
	}
	return 0
}

// ancestry returns the path from the tree root down to n, inclusive.
func ancestry(n *html.Node) []*html.Node {
	var path []*html.Node
	for cur := n; cur != nil; cur = cur.Parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
