package captable

var sectors = []string{"Artificial Intelligence", "Cybersecurity"}

const defaultSector = "Clean Energy"

var listingStatuses = []ListingStatus{ListingOpen, ListingClosing}

// Listings decorates every company in snap with its sector and stage.
// Both are assigned by position: the first company is open, the second
// closing and every later one closed.
func Listings(snap Snapshot) []Listing {
	listings := make([]Listing, 0, len(snap.Companies))
	for i, c := range snap.Companies {
		listings = append(listings, Listing{
			Company: c,
			Sector:  sectorAt(i),
			Status:  statusAt(i),
		})
	}
	return listings
}

// ListingFor returns the listing of company id in snap.
func ListingFor(snap Snapshot, id uint64) (Listing, error) {
	for _, l := range Listings(snap) {
		if l.Company.ID == id {
			return l, nil
		}
	}
	return Listing{}, ErrCompanyNotFound
}

func sectorAt(i int) string {
	if i < len(sectors) {
		return sectors[i]
	}
	return defaultSector
}

func statusAt(i int) ListingStatus {
	if i < len(listingStatuses) {
		return listingStatuses[i]
	}
	return ListingClosed
}
