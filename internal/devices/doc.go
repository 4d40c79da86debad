// Package devices models the devices attached to an alarm panel.
//
// Every device wraps an entity.Entity holding the raw attributes the cloud
// reports for it. Typed accessors derive from those attributes on each call;
// only the Z-Wave manufacturer and model are memoized, because the fields
// they come from never change after creation.
//
// A device is built from its backend type tag by New, which resolves the tag
// to a variant constructor and falls back to Unknown for tags it does not
// recognise. Variants compose capability structs such as Bypassable instead
// of sharing behaviour through a type hierarchy.
//
// Devices never hold a pointer to their panel. The Owner value supplied at
// construction carries the panel and partition ids and the Commander used to
// send commands to the cloud.
package devices
