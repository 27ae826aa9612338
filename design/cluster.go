package design

import "math"

// DefaultClusterRadius is the overlay clustering radius in pixels.
const DefaultClusterRadius = 50.0

// ClusterItems flattens issue group locations in category order, leaving out
// locations anchored to the whole page.
func ClusterItems(issues map[Category][]IssueGroup) []ClusterItem {
	var items []ClusterItem
	for _, c := range Categories {
		for _, g := range issues[c] {
			for _, loc := range g.Locations {
				if loc.Element == PageAnchor {
					continue
				}
				items = append(items, ClusterItem{
					Category: c,
					Severity: g.Severity,
					Message:  g.Message,
					Element:  loc.Element,
					Location: loc.Location,
				})
			}
		}
	}
	return items
}

// ClusterFindings groups items greedily in input order. Each item joins the
// first existing cluster whose center lies within radius of its top-left
// corner, and that cluster's center moves to the mean of its members.
// Otherwise the item starts a new cluster. The outcome depends on order.
func ClusterFindings(items []ClusterItem, radius float64) []Cluster {
	clusters := []Cluster{}
	for _, it := range items {
		p := Point{X: it.Location.X, Y: it.Location.Y}
		placed := false
		for i := range clusters {
			c := &clusters[i]
			if distance(p, c.Center) > radius {
				continue
			}
			c.Issues = append(c.Issues, it)
			c.Center = centroid(c.Issues)
			placed = true
			break
		}
		if !placed {
			clusters = append(clusters, Cluster{Center: p, Issues: []ClusterItem{it}})
		}
	}
	for i := range clusters {
		clusters[i].Severity = clusterSeverity(clusters[i].Issues)
	}
	return clusters
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func centroid(items []ClusterItem) Point {
	var sx, sy float64
	for _, it := range items {
		sx += it.Location.X
		sy += it.Location.Y
	}
	n := float64(len(items))
	return Point{X: sx / n, Y: sy / n}
}

func clusterSeverity(items []ClusterItem) string {
	if len(items) == 0 {
		return ""
	}
	first := items[0].Severity
	for _, it := range items[1:] {
		if it.Severity != first {
			return SeverityMixed
		}
	}
	return string(first)
}
