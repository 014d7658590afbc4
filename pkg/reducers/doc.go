// Package reducers builds bridge handlers from declarative action specs, so a
// map-shaped state can be driven entirely from configuration.
package reducers
