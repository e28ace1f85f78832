// Package streamline places evenly spaced streamlines in a tensor field.
//
// Streamlines come in two families: one follows the major eigen-direction of
// the field and one the minor. The Generator alternates between the families
// and keeps a seed queue and a spatial index for each. A trace stops when it
// leaves the world, runs out of steps, reaches an undefined direction, closes a
// loop on its own seed, or comes within DTest of a streamline of its family.
// Perpendicular families are expected to cross; those crossings become the
// junctions of the road graph.
//
// Placement is sequential: whether a streamline is valid depends on every
// streamline placed before it. For a fixed field, parameters and seed the
// output is fully reproducible.
//
// Seeds:
//
//   - The queue of each family starts with the start point (world centre unless
//     WithStart is given).
//   - Accepted streamlines enqueue points DSep to either side of themselves,
//     every DSep of arc length, for their own family, and their endpoints for
//     the other family.
//   - Queued seeds must be in the world and at least DTest from the family.
//   - When the queue is empty, up to SeedTries random points are drawn; they must
//     be at least DSep from the family. A family that exhausts its tries stops.
//
// After seeding, open ends may be extended up to DLookahead along their
// direction onto the nearest streamline ahead of them (within JoinAngle),
// which turns dead ends into T-junctions.
package streamline
