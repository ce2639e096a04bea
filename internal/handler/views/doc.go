// Package views renders the HTML pages.
package views
