// Package dom holds the in-memory model of the page elements that display
// build status.
//
// The main components are:
//
//   - [Element]: a single element with a class set, data attributes and
//     visibility, safe for concurrent use
//   - [Document]: the set of elements, selectable by class, with a
//     publish-subscribe stream of [Event] values for connected dashboards
//
// Mutations that change an element's status classes go through
// [Document.Transition] so readers never observe a half-applied state.
package dom
