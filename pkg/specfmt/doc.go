/*
Package specfmt renders run documents into the line-oriented "spec" file layout.

Everything here is a pure function of the documents: no files, no buffering.
The runtime serializer decides when each block is written; this package only
decides what the block looks like.

A file holds one file header followed by any number of scans:

	#F <file name>
	#E <unix time>
	#D <readable time>
	#C <owner>  User = <owner>
	#O0 <positioner sources>
	#o0 <positioner names>

	#S <scan id> <command>
	#D <readable time>
	#T <count time>  (Seconds)
	#P0 <positioner values>
	#N <column count>
	#L <motor>  Epoch  Seconds  <columns>
	<motor position>  <epoch> <count time> <values>
	...
*/
package specfmt
