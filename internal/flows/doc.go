// Package flows models Node-RED flow graphs and the pure rewrites applied when a
// tab moves between runtime instances.
//
// Nodes are decoded into a tagged record: the fields the migration reasons about
// (id, type, tab association, position, wires, links) are typed, while every
// other attribute is retained verbatim so unknown node types survive a round
// trip untouched. No function in this package mutates its arguments; rewrites
// clone first and return new graphs.
package flows
