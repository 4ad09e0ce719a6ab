package provider

import "github.com/moznion/go-optional"

func someFloat(v float64) optional.Option[float64] {
	return optional.Some(v)
}

func someString(v string) optional.Option[string] {
	if v == "" {
		return optional.None[string]()
	}

	return optional.Some(v)
}
