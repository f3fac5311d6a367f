/*
Package fieldmesh implements the smoothing and reprojection stage of
field-aligned remeshing. Given the polygon mesh extracted from an optimized
position field, it relaxes vertex positions and normals by fitting a plane to
each vertex's 1-ring and optionally pulls the relaxed vertices back onto the
reference surface through bounded ray queries.

Topology is never modified: vertex and face counts of the output match the
input. Crease vertices and vertices without neighbors are left untouched.

	res, err := fieldmesh.Smooth(mesh, fieldmesh.Parms{
		Iterations: 2,
		Scale:      scale,
		PoSy:       4,
		Oracle:     tree, // e.g. a *bih.Tree over the input surface
	})

Concrete oracles live in the bih (triangle surfaces) and sdf (analytic
surfaces) packages.
*/
package fieldmesh
