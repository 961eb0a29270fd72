// Package style derives presentation state from the selected node.
//
// Styling is a pure function of a laid-out [graph.Graph] and a selected id.
// It never moves nodes. Selecting a node highlights its incident edges and
// fades every node outside its neighbourhood; an empty selection clears all
// flags.
//
//	snap := style.Apply(g, "")     // nothing selected
//	snap = snap.Select("2106.09685")
//	snap = snap.Select("")         // back to the neutral view
//
// [Selection] tracks the current selection across events and reports when
// a consumer should refit the viewport.
package style
