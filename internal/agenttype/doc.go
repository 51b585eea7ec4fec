// Package agenttype is the boundary to the life-cycle consumer model that
// solves and simulates a population.
//
// The model itself lives outside this module. Params carries its scalar
// configuration as an immutable value, Solver and Simulator describe the
// two calls the analysis needs, and Workbook serves both from an .xlsx
// export of a finished run. Consumption rules arrive as TabulatedRule knots.
package agenttype
