// Package hclconf reads the two HCL artifacts a run needs: the settings
// directory (base layer plus environment overlays) and the experiment file
// listing stimuli in presentation order.
package hclconf
