/*
Package agentm maps raw document-store records to typed Go values.

We implement:

1. Records, ordered string-keyed maps that are the storage for every document.

2. Accessors, declared once per field and bound to a record key: read-only,
writable (with an optional validator), reference (a nested mapping seen as a
typed value) and reference list (a list of those, optionally under a dotted
path).

3. Kinds, describing document subtypes and the collection each one owns.

4. A registry from collection name to kind, and an outgoing hook that a store
calls to re-wrap raw records as the registered kind.

# Technical Details

**Namespace tag.**
Every document record carries its collection name under "_ns". Building a
document of a kind stamps the tag if it is missing; an existing tag wins and
becomes the document's collection.

**Coercion.**
References are coerced on access and the typed value replaces the raw data in
the parent record, so the second read is a type assertion. Typed wrappers share
the nested record with their parent; there is no copying, and edits made through
a returned value are visible through the parent.

**Dotted paths.**
For "a.b.items", "a" and "b" are nested records created on demand, "items" is
the list. A segment holding a non-mapping value is an error, never overwritten.

**Identifiers.**
"_id" is exposed read-only through Document.ID; stores assign it.
*/
package agentm
