// Package query translates request parameters into store-neutral read
// queries.
//
// A Builder applies four independent steps in a fixed order:
//
//   - Filter: non-reserved parameters become conditions; price[gte]=100
//     becomes a comparison, duration=5 an equality.
//   - Sort: sort=-price,name orders by price descending then name.
//   - Project: fields=name,price selects fields; the default hides __v.
//   - Paginate: page and limit compute Skip and Limit (defaults 1 and 12).
//
// The result is a Query value. Nothing touches a database here; the
// repository packages translate a Query into SurrealQL or a MongoDB find.
package query
