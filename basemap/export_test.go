package basemap

var WrapText = wrapText
