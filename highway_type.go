package roadgeom

type HighwayType uint16

const (
	HIGHWAY_MOTORWAY = HighwayType(iota + 1)
	HIGHWAY_MOTORWAY_LINK
	HIGHWAY_TRUNK
	HIGHWAY_TRUNK_LINK
	HIGHWAY_PRIMARY
	HIGHWAY_PRIMARY_LINK
	HIGHWAY_SECONDARY
	HIGHWAY_SECONDARY_LINK
	HIGHWAY_TERTIARY
	HIGHWAY_TERTIARY_LINK
	HIGHWAY_RESIDENTIAL
	HIGHWAY_LIVING_STREET
	HIGHWAY_SERVICE
	HIGHWAY_UNCLASSIFIED

	HIGHWAY_UNDEFINED = HighwayType(0)
)

func (iotaIdx HighwayType) String() string {
	return [...]string{"undefined", "motorway", "motorway_link", "trunk", "trunk_link", "primary", "primary_link", "secondary", "secondary_link", "tertiary", "tertiary_link", "residential", "living_street", "service", "unclassified"}[iotaIdx]
}

func getHighwayType(str string) HighwayType {
	if found, ok := highwaysTypes[str]; ok {
		return found
	}
	return HIGHWAY_UNDEFINED
}

var (
	highwaysTypes = map[string]HighwayType{
		"motorway":       HIGHWAY_MOTORWAY,
		"motorway_link":  HIGHWAY_MOTORWAY_LINK,
		"trunk":          HIGHWAY_TRUNK,
		"trunk_link":     HIGHWAY_TRUNK_LINK,
		"primary":        HIGHWAY_PRIMARY,
		"primary_link":   HIGHWAY_PRIMARY_LINK,
		"secondary":      HIGHWAY_SECONDARY,
		"secondary_link": HIGHWAY_SECONDARY_LINK,
		"tertiary":       HIGHWAY_TERTIARY,
		"tertiary_link":  HIGHWAY_TERTIARY_LINK,
		"residential":    HIGHWAY_RESIDENTIAL,
		"living_street":  HIGHWAY_LIVING_STREET,
		"service":        HIGHWAY_SERVICE,
		"unclassified":   HIGHWAY_UNCLASSIFIED,
	}

	// lanes per travel direction when way has no lanes tags
	defaultLanesByHighway = map[HighwayType]int{
		HIGHWAY_MOTORWAY:       2,
		HIGHWAY_MOTORWAY_LINK:  1,
		HIGHWAY_TRUNK:          2,
		HIGHWAY_TRUNK_LINK:     1,
		HIGHWAY_PRIMARY:        2,
		HIGHWAY_PRIMARY_LINK:   1,
		HIGHWAY_SECONDARY:      1,
		HIGHWAY_SECONDARY_LINK: 1,
		HIGHWAY_TERTIARY:       1,
		HIGHWAY_TERTIARY_LINK:  1,
		HIGHWAY_RESIDENTIAL:    1,
		HIGHWAY_LIVING_STREET:  1,
		HIGHWAY_SERVICE:        1,
		HIGHWAY_UNCLASSIFIED:   1,
	}

	onewayDefaultByHighway = map[HighwayType]bool{
		HIGHWAY_MOTORWAY:      true,
		HIGHWAY_MOTORWAY_LINK: true,
	}

	// drivableHighways are imported when no explicit list is given
	drivableHighways = []HighwayType{
		HIGHWAY_MOTORWAY, HIGHWAY_MOTORWAY_LINK,
		HIGHWAY_TRUNK, HIGHWAY_TRUNK_LINK,
		HIGHWAY_PRIMARY, HIGHWAY_PRIMARY_LINK,
		HIGHWAY_SECONDARY, HIGHWAY_SECONDARY_LINK,
		HIGHWAY_TERTIARY, HIGHWAY_TERTIARY_LINK,
		HIGHWAY_RESIDENTIAL, HIGHWAY_UNCLASSIFIED,
	}
)
