package reconcile

// ExtractTrack copies a full track's own attributes into a flat Track
// record. Absent optional fields stay nil; a record is never discarded
// for missing data.
func ExtractTrack(ft FullTrack) Track {
	return Track{
		ID:          ft.ID,
		Name:        ft.Name,
		DurationMS:  ft.DurationMS,
		DiscNumber:  ft.DiscNumber,
		TrackNumber: ft.TrackNumber,
		Explicit:    ft.Explicit,
		Popularity:  ft.Popularity,
		IsLocal:     ft.IsLocal,
		IsPlayable:  ft.IsPlayable,
		ISRC:        ft.ISRC,
		Href:        ft.Href,
		URI:         ft.URI,
		PreviewURL:  ft.PreviewURL,
	}
}

// ExtractAlbum copies the album attributes of a full track. IsAvailable
// is left nil here: it requires a separate bulk album fetch and is
// filled in a later join pass.
func ExtractAlbum(ft FullTrack) Album {
	return Album{
		ID:                   ft.Album.ID,
		Name:                 ft.Album.Name,
		TotalTracks:          ft.Album.TotalTracks,
		ReleaseDate:          ft.Album.ReleaseDate,
		ReleaseDatePrecision: ft.Album.ReleaseDatePrecision,
		AlbumType:            ft.Album.AlbumType,
		Href:                 ft.Album.Href,
		URI:                  ft.Album.URI,
	}
}

// ExtractArtistAlbums returns one ArtistAlbum candidate for every track
// artist that is also a member of the album's own artist list. A
// "featured on" credit carried only by the track does not make the
// artist an album owner.
func ExtractArtistAlbums(ft FullTrack) []ArtistAlbum {
	albumArtists := make(map[string]struct{}, len(ft.Album.Artists))
	for _, a := range ft.Album.Artists {
		albumArtists[a.ID] = struct{}{}
	}

	var out []ArtistAlbum
	for _, a := range ft.Artists {
		if _, ok := albumArtists[a.ID]; !ok {
			continue
		}
		out = append(out, ArtistAlbum{
			ArtistID: a.ID,
			AlbumID:  ft.Album.ID,
		})
	}
	return out
}

// ExtractArtist flattens a full artist record.
func ExtractArtist(fa FullArtist) Artist {
	return Artist{
		ID:             fa.ID,
		Name:           fa.Name,
		TotalFollowers: fa.TotalFollowers,
		Popularity:     fa.Popularity,
		Href:           fa.Href,
		URI:            fa.URI,
	}
}

// ExtractArtistGenres returns the artist↔genre association rows for a
// full artist record.
func ExtractArtistGenres(fa FullArtist) []ArtistGenre {
	var out []ArtistGenre
	for _, genre := range fa.Genres {
		out = append(out, ArtistGenre{ArtistID: fa.ID, GenreName: genre})
	}
	return out
}
