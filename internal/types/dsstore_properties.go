package types

// Known .DS_Store property codes
const (
	// PropBackground is a 12-byte blob describing the icon view background (DefB, ClrB or PctB)
	PropBackground FourCC = "BKGD"
	// PropIconLocation is a 16-byte blob holding the icon centre
	PropIconLocation FourCC = "Iloc"
	// PropWindowSizeAndLayout is a binary plist with window bounds and visible chrome
	PropWindowSizeAndLayout FourCC = "bwsp"
	PropComments            FourCC = "cmmt"
	PropDisclosed           FourCC = "dscl"
	// PropFinderWindowInformation is a 16-byte blob: window rect then view type
	PropFinderWindowInformation    FourCC = "fwi0"
	PropFinderWindowSidebarWidth   FourCC = "fwsw"
	PropFinderWindowVerticalHeight FourCC = "fwvh"
	PropIconViewOptions            FourCC = "icvo"
	// PropIconViewOptionsPList is a binary plist with icon view settings
	PropIconViewOptionsPList  FourCC = "icvp"
	PropIconViewTextLabelSize FourCC = "icvt"
	PropLogicalSize           FourCC = "logS"
	PropLogicalSize1          FourCC = "lg1S"
	PropListViewOptions       FourCC = "lsvo"
	PropListViewTextSize      FourCC = "lsvt"
	PropListViewOptionsPList  FourCC = "lsvp"
	PropPhysicalSize          FourCC = "phyS"
	PropPhysicalSize1         FourCC = "ph1S"
	// PropBackgroundAlias holds an Alias record resolving to the background image
	PropBackgroundAlias FourCC = "pict"
	// PropViewStyle is one of icnv, clmv, Nlsv or Flwv
	PropViewStyle FourCC = "vstl"
	// PropBackgroundBookmark holds a Bookmark resolving to the background image
	PropBackgroundBookmark FourCC = "pBBk"
	// PropDirectoryVersion always seems to hold long 1
	PropDirectoryVersion FourCC = "vSrn"
)

// View styles stored under PropViewStyle
const (
	ViewStyleIcon      FourCC = "icnv"
	ViewStyleColumn    FourCC = "clmv"
	ViewStyleList      FourCC = "Nlsv"
	ViewStyleCoverflow FourCC = "Flwv"
)

// PropertyDescriptions maps known property codes to a short label
var PropertyDescriptions = map[FourCC]string{
	PropBackground:                 "Background",
	PropIconLocation:               "Icon location",
	PropWindowSizeAndLayout:        "Window size and layout",
	PropComments:                   "Spotlight comments",
	PropDisclosed:                  "Disclosed in list view",
	PropFinderWindowInformation:    "Finder window information",
	PropFinderWindowSidebarWidth:   "Sidebar width",
	PropFinderWindowVerticalHeight: "Window vertical height",
	PropIconViewOptions:            "Icon view options",
	PropIconViewOptionsPList:       "Icon view options (plist)",
	PropIconViewTextLabelSize:      "Icon view text size",
	PropLogicalSize:                "Logical size",
	PropLogicalSize1:               "Logical size",
	PropListViewOptions:            "List view options",
	PropListViewTextSize:           "List view text size",
	PropListViewOptionsPList:       "List view options (plist)",
	PropPhysicalSize:               "Physical size",
	PropPhysicalSize1:              "Physical size",
	PropBackgroundAlias:            "Background alias",
	PropViewStyle:                  "View style",
	PropBackgroundBookmark:         "Background bookmark",
	PropDirectoryVersion:           "Directory version",
}

// DescribeProperty returns the label for a property code, or the code itself
func DescribeProperty(code FourCC) string {
	if d, ok := PropertyDescriptions[code]; ok {
		return d
	}
	return code.String()
}
