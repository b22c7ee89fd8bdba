// Package tree lists remote directories and renders them as box-drawing trees.
package tree

import (
	"context"
	"fmt"
	"io"

	"dwcli/internal/models"
)

const (
	midGlyph = "├──"
	endGlyph = "└──"
	barTab   = "│\t"
	plainTab = "\t"
)

type Lister interface {
	ListDirectory(ctx context.Context, dirPath string, recursive, includeFiles bool) (*models.RemoteNode, error)
}

type Client struct {
	lister Lister
}

func NewClient(lister Lister) *Client {
	return &Client{lister: lister}
}

// List fetches the tree at dirPath. Errors are fatal for the caller.
func (c *Client) List(ctx context.Context, dirPath string, recursive, includeFiles bool) (*models.RemoteNode, error) {
	node, err := c.lister.ListDirectory(ctx, dirPath, recursive, includeFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", displayPath(dirPath), err)
	}
	return node, nil
}

// Render returns the root name followed by one line per directory and file,
// depth first, directories before files.
func Render(node models.RemoteNode) []string {
	lines := []string{node.Name}
	lines = renderLevel(lines, node.Dirs(), "", node.HasFiles())
	return renderLevel(lines, fileNodes(node), "", false)
}

// Print writes Render(node) to w.
func Print(w io.Writer, node models.RemoteNode) error {
	for _, line := range Render(node) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// renderLevel draws siblings. The last sibling gets the end glyph only when no
// file listing follows it at the same level; its children then drop the bar.
func renderLevel(lines []string, nodes []models.RemoteNode, indent string, filesFollow bool) []string {
	for i, n := range nodes {
		glyph, childIndent := midGlyph, indent+barTab
		if i == len(nodes)-1 && !filesFollow {
			glyph, childIndent = endGlyph, indent+plainTab
		}
		lines = append(lines, indent+glyph+" "+n.Name)
		lines = renderLevel(lines, n.Dirs(), childIndent, n.HasFiles())
		lines = renderLevel(lines, fileNodes(n), childIndent, false)
	}
	return lines
}

func fileNodes(n models.RemoteNode) []models.RemoteNode {
	refs := n.FileRefs()
	nodes := make([]models.RemoteNode, 0, len(refs))
	for _, f := range refs {
		nodes = append(nodes, models.RemoteNode{Name: f.Name})
	}
	return nodes
}

func displayPath(dirPath string) string {
	if dirPath == "" {
		return "/"
	}
	return dirPath
}
