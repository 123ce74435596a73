// Package discovery advertises and finds Daelim simulators and bridges
// over mDNS.
//
// Real apartment servers do not advertise themselves; their address comes
// from the apartment's web portal. The simulator (daelim-sim serve
// --advertise) and the bridge (daelim bridge --advertise) register a
// "_daelim._tcp" service with a "role" TXT record so that clients on the
// same network can find them without configuration.
//
// # Usage Example
//
//	services, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, svc := range services {
//	    fmt.Println(svc.Role, svc.Address())
//	}
//
//	ad, err := discovery.Advertise("daelim-sim", discovery.RoleServer, 25301, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ad.Shutdown()
package discovery
