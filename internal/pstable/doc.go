// Package pstable reads the operating system process table by running an
// external listing command (ps) and parsing its header-driven columnar
// output.
//
// The header line decides where the user, pid and name columns are; every
// following line is tokenized with the same separator rule. All filtering
// happens in-process and by exact equality, so a pid or an argument that
// merely contains the searched string never matches.
package pstable
