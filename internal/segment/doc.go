// Package segment groups contiguous PDF pages into candidate instrument
// parts using header-text similarity, without any model call.
package segment
