/*

Package base provides base functions for lowrank.

The base functions include:

* Random Generator

* Weighted Sampling

*/
package base
