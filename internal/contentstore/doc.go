// Package contentstore is a pebble-backed content tree.
//
// It stores item versions together with two secondary indexes: the
// parent/child relation used to walk subtrees, and the reverse dependency
// relation used to find the items whose indexed data depends on another
// item.
//
// Key layout (segments separated by '/'):
//
//	item/<db>/<id>/<lang>/<version:%010d>          -> JSON content.Item
//	parent/<db>/<id>                               -> parent id
//	child/<db>/<parent>/<id>                       -> empty
//	dep/<db>/<target>/<lang>/<dependent>/<lang>/<version:%010d> -> empty
//
// Versions are zero padded so that lexical key order is numeric order.
package contentstore
