package reconcile

import "testing"

func TestExtractTrack(t *testing.T) {
	playable := true
	ft := FullTrack{
		ID:          "t1",
		Name:        "Song",
		DurationMS:  201000,
		DiscNumber:  1,
		TrackNumber: 7,
		Explicit:    true,
		Popularity:  64,
		IsPlayable:  &playable,
		ISRC:        strptr("USUM71703861"),
		Href:        "https://api.spotify.com/v1/tracks/t1",
		URI:         "spotify:track:t1",
		Album:       TrackAlbum{ID: "a1"},
	}

	got := ExtractTrack(ft)
	if got.ID != "t1" || got.Name != "Song" || got.DurationMS != 201000 {
		t.Errorf("ExtractTrack() = %+v, want core fields copied", got)
	}
	if got.ISRC == nil || *got.ISRC != "USUM71703861" {
		t.Errorf("ExtractTrack().ISRC = %v, want USUM71703861", got.ISRC)
	}
	if got.IsPlayable == nil || !*got.IsPlayable {
		t.Errorf("ExtractTrack().IsPlayable = %v, want true", got.IsPlayable)
	}
	if got.PreviewURL != nil {
		t.Errorf("ExtractTrack().PreviewURL = %v, want nil when absent", got.PreviewURL)
	}
}

func TestExtractTrackMissingOptionalFields(t *testing.T) {
	got := ExtractTrack(FullTrack{ID: "t1"})
	if got.ISRC != nil || got.IsPlayable != nil || got.PreviewURL != nil {
		t.Errorf("ExtractTrack() = %+v, want nil optional fields", got)
	}
}

func TestExtractAlbumLeavesAvailabilityUnset(t *testing.T) {
	ft := FullTrack{
		Album: TrackAlbum{
			ID:                   "a1",
			Name:                 "Record",
			TotalTracks:          12,
			ReleaseDate:          "2019-05-17",
			ReleaseDatePrecision: "day",
			AlbumType:            "album",
		},
	}

	got := ExtractAlbum(ft)
	if got.ID != "a1" || got.TotalTracks != 12 || got.ReleaseDate != "2019-05-17" {
		t.Errorf("ExtractAlbum() = %+v, want album fields copied", got)
	}
	// Availability takes a separate album fetch and a join pass.
	if got.IsAvailable != nil {
		t.Errorf("ExtractAlbum().IsAvailable = %v, want nil", got.IsAvailable)
	}
}

func TestExtractArtistAlbums(t *testing.T) {
	tests := []struct {
		name string
		ft   FullTrack
		want []ArtistAlbum
	}{
		{
			name: "album owner gets a row",
			ft: FullTrack{
				Artists: []TrackArtist{{ID: "ar1"}},
				Album: TrackAlbum{
					ID:      "a1",
					Artists: []TrackArtist{{ID: "ar1"}},
				},
			},
			want: []ArtistAlbum{{ArtistID: "ar1", AlbumID: "a1"}},
		},
		{
			name: "featured artist is excluded",
			ft: FullTrack{
				Artists: []TrackArtist{{ID: "ar1"}, {ID: "ar2"}},
				Album: TrackAlbum{
					ID:      "a1",
					Artists: []TrackArtist{{ID: "ar1"}},
				},
			},
			want: []ArtistAlbum{{ArtistID: "ar1", AlbumID: "a1"}},
		},
		{
			name: "no overlap yields no rows",
			ft: FullTrack{
				Artists: []TrackArtist{{ID: "ar2"}},
				Album: TrackAlbum{
					ID:      "a1",
					Artists: []TrackArtist{{ID: "ar1"}},
				},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractArtistAlbums(tt.ft)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractArtistAlbums() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i].ArtistID != tt.want[i].ArtistID || got[i].AlbumID != tt.want[i].AlbumID {
					t.Errorf("ExtractArtistAlbums()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractArtistGenres(t *testing.T) {
	fa := FullArtist{ID: "ar1", Genres: []string{"rock", "indie"}}

	got := ExtractArtistGenres(fa)
	want := []ArtistGenre{
		{ArtistID: "ar1", GenreName: "rock"},
		{ArtistID: "ar1", GenreName: "indie"},
	}
	if len(got) != len(want) {
		t.Fatalf("ExtractArtistGenres() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtractArtistGenres()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
